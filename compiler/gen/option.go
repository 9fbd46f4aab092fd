package gen

import "github.com/syssam/dal"

// DefaultHeader is the first line of every generated file.
const DefaultHeader = "Code generated by dal gen. DO NOT EDIT."

// Config holds the generation settings.
type Config struct {
	// Package is the name of the generated package.
	Package string
	// Header is the file header comment.
	Header string
	// Filename names the output in formatting errors.
	Filename string
}

// Option configures code generation.
type Option func(*Config) error

// WithPackage sets the generated package name.
func WithPackage(pkg string) Option {
	return func(c *Config) error {
		if !identifier.MatchString(pkg) {
			return dal.NewConfigError("Package", pkg, "package must be a valid Go identifier")
		}
		c.Package = pkg
		return nil
	}
}

// WithHeader sets the file header comment.
func WithHeader(header string) Option {
	return func(c *Config) error {
		c.Header = header
		return nil
	}
}

// WithFilename sets the file name reported by the formatter.
func WithFilename(name string) Option {
	return func(c *Config) error {
		if name == "" {
			return dal.NewConfigError("Filename", nil, "filename cannot be empty")
		}
		c.Filename = name
		return nil
	}
}

// NewConfig returns the default configuration with opts applied.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{
		Package:  "stmts",
		Header:   DefaultHeader,
		Filename: "statements.go",
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}
