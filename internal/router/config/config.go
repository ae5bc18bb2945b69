package config

import "github.com/spf13/viper"

// Config - structure de stockage de la configuration de l'application.
type Config struct {
	ServerAddress string `mapstructure:"SERVER_ADDRESS"`
	PostgresConn  string `mapstructure:"POSTGRES_CONN"`
	PostgresUser  string `mapstructure:"POSTGRES_USERNAME"`
	PostgresPass  string `mapstructure:"POSTGRES_PASSWORD"`
	PostgresHost  string `mapstructure:"POSTGRES_HOST"`
	PostgresPort  string `mapstructure:"POSTGRES_PORT"`
	PostgresDB    string `mapstructure:"POSTGRES_DATABASE"`
	MigrationURL  string `mapstructure:"MIGRATION_URL"`

	SMTPHost string `mapstructure:"SMTP_HOST"`
	SMTPPort int    `mapstructure:"SMTP_PORT"`
	SMTPUser string `mapstructure:"SMTP_USERNAME"`
	SMTPPass string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom string `mapstructure:"SMTP_FROM"`

	// Seuils de passation en FCFA ; zéro = barème par défaut.
	SeuilCotation    int64 `mapstructure:"SEUIL_COTATION"`
	SeuilCompetition int64 `mapstructure:"SEUIL_COMPETITION"`
	SeuilAppelOffres int64 `mapstructure:"SEUIL_APPEL_OFFRES"`
}

// LoadConfig charge la configuration depuis un fichier.
func LoadConfig(path string) (cfg Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("app")
	viper.SetConfigType("env")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}
	err = viper.Unmarshal(&cfg)
	return
}
