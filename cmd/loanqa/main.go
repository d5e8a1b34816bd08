package main

import "loanqa/internal/cli"

func main() {
	cli.Execute()
}
