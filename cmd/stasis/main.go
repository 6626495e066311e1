// Command stasis inspects save files produced by the stasis library.
package main

func main() {
	Execute()
}
