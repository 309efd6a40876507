package mcpserver

// EntryFormatContract describes the canonical ledger entry format that
// LLM consumers should follow when drafting or reviewing entries.
const EntryFormatContract = `# Raido Entry Format Contract

Every Markdown entry in the ledger corpus MUST follow this structure.

## Structure

` + "```" + `markdown
---
title: Human-readable title              # REQUIRED
ledger_id: LED-2026-0042                 # REQUIRED - unique across the corpus
created_at: 2026-01-10T14:30:00+01:00    # REQUIRED - ISO-8601 with UTC offset
canonical_status: under_review           # REQUIRED - draft|under_review|canonized|archived
ledger_stream: governance                # REQUIRED
classification: internal                 # REQUIRED
retention: 7y                            # REQUIRED
attestation:                             # required before canonization
  threshold: 2
  signers:
    - identity: alice@example.org
      method: pgp                        # pgp|sigstore|digest-only
      artifact: sigs/LED-2026-0042.alice.asc
    - identity: bob@example.org
      method: sigstore
      artifact: sigs/LED-2026-0042.bob.bundle
hashes:
  body_sha256: <hex digest of the normalized body>
  attachments:
    - path: evidence/capture.png
      sha256: <hex digest>
      size: 48213
provenance:
  evidence_chain:
    - ref: evidence/source-email.eml
      kind: local
exceptions:                              # optional, registry-backed waivers
  - id: EXC-2026-007
    requirement: retention
---

Body text in standard Markdown.
` + "```" + `

## Rules

1. **YAML frontmatter is mandatory.** The ` + "`" + `---` + "`" + ` fences must be the first
   thing in the file (no leading blank lines). An entry without parseable
   frontmatter fails validation outright.
2. **Timestamps carry an explicit UTC offset.** Bare dates or naive
   datetimes are schema violations.
3. **The body hash covers the normalized body:** LF line endings, trailing
   whitespace stripped, HTML comments removed. Run the hash tool rather
   than computing digests by hand.
4. **Attachments are declared with path, sha256, and size.** Paths are
   relative to the entry's own directory.
5. **Canonized entries need a recorded body hash and enough independent
   verifiable signers** (two by default; digest-only signers do not count).
6. **Exceptions reference the governance registry by id.** An exception
   that is expired, inactive, or scoped to a different path does not waive
   anything. Secret-scan and signer-threshold requirements can never be
   waived.
7. **No executable HTML.** script, object, embed, and iframe tags fail
   validation; javascript:, vbscript:, file:, and data: link schemes are
   forbidden.
8. **Encoding** is UTF-8 with a trailing newline; file paths end with
   ` + "`" + `.md` + "`" + ` and use forward slashes.
`
