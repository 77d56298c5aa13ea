package config

import (
	"fmt"
	"log"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env-default:"8080"`
}

// CodesConfig selects the store backend for session codes. The file backend
// is the default; mongo and mysql require the matching section enabled.
type CodesConfig struct {
	Backend string `yaml:"backend" env-default:"file"`
	File    string `yaml:"file" env-default:"lib/codes.json"`
}

type StripeConfig struct {
	APIKey            string `yaml:"api_key" env-default:""`
	WebhookSecret     string `yaml:"webhook_secret" env-default:""`
	TestMode          bool   `yaml:"test_mode" env-default:"false"`
	TestKey           string `yaml:"test_key" env-default:""`
	TestWebhookSecret string `yaml:"test_webhook_secret" env-default:""`
	SuccessURL        string `yaml:"success_url" env-default:""`
	CancelURL         string `yaml:"cancel_url" env-default:""`
	// Price is the one-time unlock price in minor currency units.
	Price    int64  `yaml:"price" env-default:"1500"`
	Currency string `yaml:"currency" env-default:"EUR"`
}

type MongoConfig struct {
	Enabled  bool   `yaml:"enabled" env-default:"false"`
	Host     string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"27017"`
	User     string `yaml:"user" env-default:""`
	Password string `yaml:"password" env-default:""`
	Database string `yaml:"database" env-default:"ideaforge"`
}

type MySQLConfig struct {
	Enabled  bool   `yaml:"enabled" env-default:"false"`
	Host     string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"3306"`
	User     string `yaml:"user" env-default:""`
	Password string `yaml:"password" env-default:""`
	Database string `yaml:"database" env-default:"ideaforge"`
	Prefix   string `yaml:"prefix" env-default:""`
}

type AdvisorConfig struct {
	APIKey  string `yaml:"api_key" env-default:""`
	BaseURL string `yaml:"base_url" env-default:"https://api.x.ai/v1"`
	Model   string `yaml:"model" env-default:"grok-4-0709"`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled" env-default:"false"`
	APIKey  string `yaml:"api_key" env-default:""`
	ChatId  int64  `yaml:"chat_id" env-default:"0"`
}

type Config struct {
	Env      string         `yaml:"env" env-default:"local"`
	Listen   Listen         `yaml:"listen"`
	Codes    CodesConfig    `yaml:"codes"`
	Stripe   StripeConfig   `yaml:"stripe"`
	Mongo    MongoConfig    `yaml:"mongo"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Advisor  AdvisorConfig  `yaml:"advisor"`
	Telegram TelegramConfig `yaml:"telegram"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}
