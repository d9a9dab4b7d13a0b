package main

import "kaamsetu_backend/internal/app"

func main() {
	app.Run()
}
