package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	yaml "gopkg.in/yaml.v2"
)

const configFile = "config.yml"

// reading config error is fatal, and exits the main thread
func processError(err error) {
	fmt.Println(err)
	os.Exit(2)
}

// Init loads the yaml config file and then lets environment variables
// override individual fields (secrets are normally injected that way).
func Init() {
	f, err := os.Open(configFile)
	if err != nil {
		processError(err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&Config); err != nil {
		processError(err)
	}
	if err := envconfig.Process("", &Config); err != nil {
		processError(err)
	}
}
