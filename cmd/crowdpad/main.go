package main

import "github.com/magworks/crowdpad/internal/bootstrap"

func main() {
	bootstrap.Run()
}
