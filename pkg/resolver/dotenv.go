package resolver

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// DotEnv returns a lookup that consults the process environment first and then
// the given dotenv files, without modifying the process environment.
func DotEnv(files ...string) (LookupEnv, error) {
	overlay, err := godotenv.Read(files...)
	if err != nil {
		return nil, fmt.Errorf("failed to read env files: %w", err)
	}
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := overlay[key]
		return v, ok
	}, nil
}

// MapEnv returns a lookup over a fixed map.
func MapEnv(values map[string]string) LookupEnv {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}
