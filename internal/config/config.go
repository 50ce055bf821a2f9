// Package config reads the engine's operational config.json: log
// directory, output directory and default scenario file, with a
// Kubernetes-style override path via OCP_ENV/CONFIG_PATH.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
)

// convertTypes walks a decoded JSON value, normalising nested maps and
// slices so callers get plain Go types back instead of raw interface{}.
func convertTypes(val interface{}) interface{} {
	switch v := val.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{})
		for key, value := range v {
			m[key] = convertTypes(value)
		}
		return m
	case []interface{}:
		arr := make([]interface{}, len(v))
		for i, elem := range v {
			arr[i] = convertTypes(elem)
		}
		return arr
	case float64:
		return v
	case int:
		return v
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ReadConfig loads config.json from the working directory, or from
// CONFIG_PATH when OCP_ENV is set (the Kubernetes deployment layout).
func ReadConfig() (map[string]interface{}, error) {
	ocpEnv := os.Getenv("OCP_ENV")
	configPath := os.Getenv("CONFIG_PATH")

	configPathFile := "./config.json"
	if ocpEnv != "" {
		configPathFile = configPath + "config.json"
	}

	log.Println("Reading in config from:", configPathFile)
	file, err := os.Open(configPathFile)
	if err != nil {
		panic(err)
	}
	defer file.Close()

	var result map[string]interface{}
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&result); err != nil {
		panic(err)
	}

	result = convertTypes(result).(map[string]interface{})

	return result, nil
}
