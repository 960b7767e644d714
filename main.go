package main

import "github.com/konverge-dev/konverge/internal/cmd"

func main() {
	cmd.Execute()
}
