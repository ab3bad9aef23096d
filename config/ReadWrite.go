package config

// ReadWrite temporarily grants write access to c. The read-only and
// struct flags observed on entry are cleared while body runs and are
// restored exactly as observed on every exit path, including when body
// returns an error or panics.
//
//	err := config.ReadWrite(cfg, func(c *config.Config) error {
//		return c.Set("environment.split", "val")
//	})
func ReadWrite(c *Config, body func(*Config) error) error {
	prevReadOnly, prevStruct := c.readonly, c.strict
	defer func() {
		c.readonly = prevReadOnly
		c.strict = prevStruct
	}()

	c.readonly = false
	c.strict = false

	return body(c)
}
