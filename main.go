package main

import "github.com/jmehdipour/wctp-gateway/cmd"

func main() {
	cmd.Execute()
}
