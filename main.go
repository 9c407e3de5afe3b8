package main

import (
	"log"

	"LumiFM/cmd"
)

func main() {
	cmd.Execute()
	// If Execute() had a problem, Cobra would have called os.Exit.
	// Reaching here means the command completed successfully.
	log.Println("Command execution finished.")
}
