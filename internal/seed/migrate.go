package seed

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Migrate applies the migrations in dir against dsn. ErrNoChange is not an
// error; it reports applied=false instead.
func Migrate(dir, dsn string, direction Direction) (applied bool, err error) {
	if direction != Up && direction != Down {
		return false, fmt.Errorf("unknown migration direction %q", direction)
	}
	m, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		return false, fmt.Errorf("migration init: %w", err)
	}
	defer m.Close()

	if direction == Up {
		err = m.Up()
	} else {
		err = m.Down()
	}
	if errors.Is(err, migrate.ErrNoChange) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("migrate %s: %w", direction, err)
	}
	return true, nil
}
