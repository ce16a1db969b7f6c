// The main package for the seoscan executable.
package main

import "github.com/JakeFAU/seo-opportunity-scanner/cmd"

func main() {
	cmd.Execute()
}
