// Command oversim runs overlay simulations from the command line.
package main

func main() {
	Execute()
}
