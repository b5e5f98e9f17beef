package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/duemate/duemate/internal/config"
	"github.com/duemate/duemate/internal/dynamodb"
	"github.com/duemate/duemate/internal/logger"
)

// Creates the invoice table with its three secondary indexes. Safe to run
// repeatedly; an existing table is left untouched.
func main() {
	dryRun := flag.Bool("dry-run", false, "Print the table definition without creating it")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	client, err := dynamodb.NewClient(cfg)
	if err != nil {
		logger.Fatalf("Failed to create DynamoDB client: %v", err)
	}

	input := tableDefinition(cfg.DynamoDB.TableName)
	if *dryRun {
		logger.Infow("dry run, table would be created",
			"table", cfg.DynamoDB.TableName,
			"indexes", len(input.GlobalSecondaryIndexes),
		)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	logger.Infof("Creating table %s...", cfg.DynamoDB.TableName)
	if _, err := client.Raw().CreateTable(ctx, input); err != nil {
		var exists *ddbtypes.ResourceInUseException
		if errors.As(err, &exists) {
			logger.Infow("table already exists", "table", cfg.DynamoDB.TableName)
			return
		}
		logger.Fatalf("Failed to create table: %v", err)
	}

	waiter := awsdynamodb.NewTableExistsWaiter(client.Raw())
	if err := waiter.Wait(ctx, &awsdynamodb.DescribeTableInput{
		TableName: aws.String(cfg.DynamoDB.TableName),
	}, 2*time.Minute); err != nil {
		logger.Fatalf("Table did not become active: %v", err)
	}

	logger.Infow("table created", "table", cfg.DynamoDB.TableName)
}

func tableDefinition(tableName string) *awsdynamodb.CreateTableInput {
	stringAttrs := []string{"PK", "SK", "GSI1PK", "GSI1SK", "GSI2PK", "GSI2SK", "GSI3PK", "GSI3SK"}

	attrs := make([]ddbtypes.AttributeDefinition, 0, len(stringAttrs))
	for _, name := range stringAttrs {
		attrs = append(attrs, ddbtypes.AttributeDefinition{
			AttributeName: aws.String(name),
			AttributeType: ddbtypes.ScalarAttributeTypeS,
		})
	}

	gsi := func(index string) ddbtypes.GlobalSecondaryIndex {
		return ddbtypes.GlobalSecondaryIndex{
			IndexName: aws.String(index),
			KeySchema: []ddbtypes.KeySchemaElement{
				{AttributeName: aws.String(index + "PK"), KeyType: ddbtypes.KeyTypeHash},
				{AttributeName: aws.String(index + "SK"), KeyType: ddbtypes.KeyTypeRange},
			},
			Projection: &ddbtypes.Projection{ProjectionType: ddbtypes.ProjectionTypeAll},
		}
	}

	return &awsdynamodb.CreateTableInput{
		TableName:            aws.String(tableName),
		AttributeDefinitions: attrs,
		KeySchema: []ddbtypes.KeySchemaElement{
			{AttributeName: aws.String("PK"), KeyType: ddbtypes.KeyTypeHash},
			{AttributeName: aws.String("SK"), KeyType: ddbtypes.KeyTypeRange},
		},
		GlobalSecondaryIndexes: []ddbtypes.GlobalSecondaryIndex{
			gsi("GSI1"), gsi("GSI2"), gsi("GSI3"),
		},
		BillingMode: ddbtypes.BillingModePayPerRequest,
	}
}
