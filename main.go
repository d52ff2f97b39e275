package main

import "github.com/theirongolddev/gburn/cmd"

func main() {
	cmd.Execute()
}
