package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

var (
	dotenvOnce sync.Once
	dotenvPath string
	dotenvErr  error
)

// LoadDotEnv loads the first .env file found from the working directory up to
// the filesystem root. Variables already present in the environment are not
// overwritten. Subsequent calls are no-ops and return the first result.
//
// Returns:
//   - string: Path of the loaded file, or "" when none was found
//   - error: If the file exists but could not be parsed
func LoadDotEnv() (string, error) {
	// Keep unit tests hermetic; opt in with RELAYDESK_TEST_DOTENV=1.
	if runningUnderGoTest() && os.Getenv("RELAYDESK_TEST_DOTENV") != "1" {
		return "", nil
	}
	dotenvOnce.Do(func() {
		path, err := findDotEnv()
		if err != nil || path == "" {
			dotenvErr = err
			return
		}
		if err := godotenv.Load(path); err != nil {
			dotenvErr = err
			return
		}
		dotenvPath = path
	})
	return dotenvPath, dotenvErr
}

func runningUnderGoTest() bool {
	if strings.HasSuffix(os.Args[0], ".test") {
		return true
	}
	for _, arg := range os.Args[1:] {
		if strings.HasPrefix(arg, "-test.") {
			return true
		}
	}
	return false
}

func findDotEnv() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(wd, ".env")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(wd)
		if parent == wd {
			return "", nil
		}
		wd = parent
	}
}
