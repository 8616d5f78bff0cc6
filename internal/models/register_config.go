package models

// RegisterConfigKey is the system_configs row holding the registration and
// SMTP settings managed through the admin panel.
const RegisterConfigKey = "register"

type SMTPConfig struct {
	Host   string `json:"host"`
	Port   int    `json:"port"`
	Secure bool   `json:"secure"`
	User   string `json:"user"`
	Pass   string `json:"pass"`
	From   string `json:"from"`
}

type RegisterConfig struct {
	EmailRegisterEnabled bool       `json:"emailRegisterEnabled"`
	SMTP                 SMTPConfig `json:"smtp"`
}

func DefaultRegisterConfig() RegisterConfig {
	return RegisterConfig{
		EmailRegisterEnabled: true,
		SMTP: SMTPConfig{
			Port:   465,
			Secure: true,
		},
	}
}
