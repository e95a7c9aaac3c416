package main

import (
	"log"

	"github.com/searchmux/searchmux/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
