package env

import (
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

const (
	DefaultEnvFile = ".env"
	// FileVar names an alternative env file.
	FileVar = "ENV_FILE"
)

// InitConfig loads the env file into the process environment, if it exists,
// and fills config from the environment. Variables already set in the
// process win over the file.
func InitConfig(config any) error {
	file := DefaultEnvFile
	if f := os.Getenv(FileVar); f != "" {
		file = f
	}

	if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrapf(err, "failed to load env file %s", file)
	}

	if err := envconfig.Process("", config); err != nil {
		return errors.Wrap(err, "failed to envconfig.Process")
	}

	return nil
}
