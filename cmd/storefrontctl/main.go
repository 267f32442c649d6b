package main

import "github.com/angelmondragon/storefront-backend/cmd/storefrontctl/commands"

func main() {
	commands.Execute()
}
