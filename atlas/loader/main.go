package main

import (
	"fmt"
	"io"
	"os"

	_ "ariga.io/atlas-go-sdk/recordriver" // import used by the CLI tool
	"ariga.io/atlas-provider-gorm/gormschema"

	"autonomity/src/database"
)

// Prints the DDL of the audit and metric tables for atlas. The dialect is
// the first argument and defaults to postgres.
func main() {
	dialect := "postgres"
	if len(os.Args) > 1 {
		dialect = os.Args[1]
	}
	if dialect != "postgres" && dialect != "sqlite" {
		fmt.Fprintf(os.Stderr, "unsupported dialect %q\n", dialect)
		os.Exit(1)
	}

	statements, err := gormschema.New(dialect).Load(database.DbTables...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load GORM schema: %v\n", err)
		os.Exit(1)
	}

	if dialect == "postgres" {
		fmt.Println(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`)
	}

	io.WriteString(os.Stdout, statements) //nolint:errcheck
}
