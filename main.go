package main

import "github.com/shouni/go-listing-scout/cmd"

func main() {
	cmd.Execute()
}
