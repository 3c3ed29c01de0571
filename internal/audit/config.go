package audit

type Config struct {
	CSV      bool   `yaml:"csv"`
	Dir      string `yaml:"dir" validate:"required_if=CSV true"`
	Postgres bool   `yaml:"postgres"`
}

func DefaultConfig() Config {
	return Config{CSV: true, Dir: "logs"}
}
