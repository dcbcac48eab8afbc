package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
)

var testDB *sql.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("MYSQL_TEST_DSN")
	if dsn == "" {
		// тесты хранилища идут только против живой БД
		fmt.Println("MYSQL_TEST_DSN is not set, skipping mysql storage tests")
		os.Exit(0)
	}

	var err error
	testDB, err = sql.Open("mysql", dsn)
	if err != nil {
		panic(fmt.Errorf("не удалось подключиться к тестовой БД: %w", err))
	}

	if err := testDB.Ping(); err != nil {
		panic(fmt.Errorf("ping failed: %w", err))
	}

	if err := NewWithDB(testDB).Migrate(context.Background()); err != nil {
		panic(fmt.Errorf("migrate failed: %w", err))
	}

	code := m.Run()

	testDB.Close()
	os.Exit(code)
}
