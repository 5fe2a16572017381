package config

import "os"

type Features struct {
	BatchEnabled bool
	AdminEnabled bool
	EmailEnabled bool
}

func LoadFeatures() Features {
	return Features{
		BatchEnabled: os.Getenv("BATCH_ENABLED") != "false",
		AdminEnabled: os.Getenv("ADMIN_ENABLED") != "false",
		EmailEnabled: os.Getenv("SENDGRID_API_KEY") != "",
	}
}
