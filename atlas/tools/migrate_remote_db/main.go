package main

import (
	"context"
	"fmt"
	"os"

	"ariga.io/atlas-go-sdk/atlasexec"

	"autonomity/src/config"
	"autonomity/src/database"
	"autonomity/src/datamodels"
)

// Applies atlas/migrations to the postgres database named in the app config.
// Requires the atlas binary on PATH.
func main() {
	appConfig, err := config.Load()
	if err != nil {
		fmt.Printf("❌ failed to load config: %v\n", err)
		os.Exit(1)
	}
	if appConfig.DatabaseConfig.Driver != datamodels.DatabaseDriverPostgres {
		fmt.Printf("❌ migrations only run against postgres, database.driver is %q\n", appConfig.DatabaseConfig.Driver)
		os.Exit(1)
	}

	uri := database.MakeConnectionString(&appConfig.PostgresConfig)
	fmt.Printf("Executing migrations against db at: %s:%d/%s\n",
		appConfig.PostgresConfig.Host, appConfig.PostgresConfig.Port, appConfig.PostgresConfig.Database)

	client, err := atlasexec.NewClient(".", "atlas")
	if err != nil {
		fmt.Printf("❌ failed to create atlas client: %v\n", err)
		os.Exit(1)
	}
	result, err := client.MigrateApply(context.Background(), &atlasexec.MigrateApplyParams{
		URL:    uri,
		DirURL: "file://atlas/migrations",
	})
	if err != nil {
		fmt.Printf("❌ failed to run Atlas migrations: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Applied %d migrations, now at version %s\n", len(result.Applied), result.Target)
}
