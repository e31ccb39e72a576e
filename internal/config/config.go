package config

import (
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Bench    BenchConfig
	Database DatabaseConfig
	Server   ServerConfig
	AWS      AWSConfig
}

// BenchConfig holds instrument and output configuration
type BenchConfig struct {
	OutputDir        string
	ShuntIin         float64
	ShuntIout        float64
	LoadAddress      string
	VinAddress       string
	VccAddress       string
	DAQAddress       string
	SerialPortPrefix string
	SerialBaud       int
	IOTimeout        time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
}

// AWSConfig holds AWS/S3 configuration
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	S3Endpoint      string
}

var keys = []string{
	"ENVIRONMENT",
	"OUTPUT_DIR",
	"SHUNT_IIN_OHMS",
	"SHUNT_IOUT_OHMS",
	"LOAD_ADDRESS",
	"VIN_ADDRESS",
	"VCC_ADDRESS",
	"DAQ_ADDRESS",
	"SERIAL_PORT_PREFIX",
	"SERIAL_BAUD",
	"IO_TIMEOUT",
	"DATABASE_URL",
	"PORT",
	"ALLOWED_ORIGINS",
	"AWS_REGION",
	"AWS_ACCESS_KEY_ID",
	"AWS_SECRET_ACCESS_KEY",
	"S3_BUCKET",
	"S3_ENDPOINT",
}

// Load loads configuration from environment variables and .env files
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetDefault("ENVIRONMENT", "dev")
	v.SetDefault("OUTPUT_DIR", "results")
	v.SetDefault("SHUNT_IIN_OHMS", 0.01)
	v.SetDefault("SHUNT_IOUT_OHMS", 0.001)
	v.SetDefault("LOAD_ADDRESS", "ASRL7::INSTR")
	v.SetDefault("VIN_ADDRESS", "USB0::0x1698::0x0837::002000002608::INSTR")
	v.SetDefault("VCC_ADDRESS", "USB0::0x1AB1::0x0E11::DP8C193003485::INSTR")
	v.SetDefault("DAQ_ADDRESS", "USB0::0x0957::0x2007::MY49029470::INSTR")
	v.SetDefault("SERIAL_PORT_PREFIX", defaultSerialPrefix())
	v.SetDefault("SERIAL_BAUD", 9600)
	v.SetDefault("IO_TIMEOUT", "5s")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("PORT", "8080")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("AWS_ACCESS_KEY_ID", "")
	v.SetDefault("AWS_SECRET_ACCESS_KEY", "")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_ENDPOINT", "")

	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	env := v.GetString("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}

	// Read .env file for the current environment (ignore error if file doesn't exist)
	v.SetConfigName(".env." + env)
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig()

	// Environment variables override .env file values
	v.AutomaticEnv()

	var config Config
	config.Bench.OutputDir = v.GetString("OUTPUT_DIR")
	config.Bench.ShuntIin = v.GetFloat64("SHUNT_IIN_OHMS")
	config.Bench.ShuntIout = v.GetFloat64("SHUNT_IOUT_OHMS")
	config.Bench.LoadAddress = v.GetString("LOAD_ADDRESS")
	config.Bench.VinAddress = v.GetString("VIN_ADDRESS")
	config.Bench.VccAddress = v.GetString("VCC_ADDRESS")
	config.Bench.DAQAddress = v.GetString("DAQ_ADDRESS")
	config.Bench.SerialPortPrefix = v.GetString("SERIAL_PORT_PREFIX")
	config.Bench.SerialBaud = v.GetInt("SERIAL_BAUD")
	config.Bench.IOTimeout = v.GetDuration("IO_TIMEOUT")
	config.Database.URL = v.GetString("DATABASE_URL")
	config.Server.Port = v.GetString("PORT")
	config.Server.Env = env
	config.Server.AllowedOrigins = strings.Split(v.GetString("ALLOWED_ORIGINS"), ",")
	config.AWS.Region = v.GetString("AWS_REGION")
	config.AWS.AccessKeyID = v.GetString("AWS_ACCESS_KEY_ID")
	config.AWS.SecretAccessKey = v.GetString("AWS_SECRET_ACCESS_KEY")
	config.AWS.S3Bucket = v.GetString("S3_BUCKET")
	config.AWS.S3Endpoint = v.GetString("S3_ENDPOINT")

	log.Debug().
		Str("environment", env).
		Str("output_dir", config.Bench.OutputDir).
		Bool("database", config.Database.URL != "").
		Bool("s3", config.AWS.S3Bucket != "").
		Msg("Configuration loaded")

	return &config, nil
}

func defaultSerialPrefix() string {
	if runtime.GOOS == "windows" {
		return "COM"
	}
	return "/dev/ttyS"
}
