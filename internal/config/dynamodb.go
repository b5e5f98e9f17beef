package config

// DynamoDBConfig holds configuration for the invoice table
type DynamoDBConfig struct {
	Region    string `mapstructure:"region"`
	TableName string `mapstructure:"table_name" validate:"required"`
	// Endpoint overrides the AWS endpoint, used for dynamodb-local
	Endpoint string `mapstructure:"endpoint"`
}
