package main

import (
	_ "github.com/joho/godotenv/autoload"

	"odkdl/cmd"
)

func main() {
	cmd.Execute()
}
