package main

import "github.com/kamilpajak/faultline/cmd/faultline"

func main() {
	faultline.Execute()
}
