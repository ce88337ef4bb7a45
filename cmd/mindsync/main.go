package main

import "github.com/NateEaton/mind-pwa-sub000/cmd/mindsync/cmd"

func main() {
	cmd.Execute()
}
