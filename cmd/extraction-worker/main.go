package main

import "tender-marketplace-api/app"

func main() {
	app.RunWorker()
}
