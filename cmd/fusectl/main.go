// Command fusectl inspects AVR fuse and lock descriptors and edits value files.
package main

func main() {
	execute()
}
