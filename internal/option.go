package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	run    RunOptions
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithRunOptions sets the stage selection and modes used for every
// validation pass the server performs.
func WithRunOptions(opts RunOptions) Option {
	return func(a *application) {
		a.run = opts
	}
}
