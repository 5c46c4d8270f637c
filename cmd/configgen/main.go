package main

import (
	"flag"
	"log"

	"github.com/danmuck/irrigctl/internal/config"
)

func main() {
	output := flag.String("output", "irrigctl.toml", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "irrigctl.toml", "config path for validation")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		if _, err := config.LoadControllerConfig(*input); err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated controller config at %s", *input)
		return
	}

	if err := config.WriteTemplate(*output, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote controller config template to %s", *output)
}
