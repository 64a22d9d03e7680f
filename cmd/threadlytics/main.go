package main

import "threadlytics/internal/cmd"

func main() {
	cmd.Run()
}
