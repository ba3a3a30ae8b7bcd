package main

import (
	"github.com/alisoliman/realtime-api/internal/bootstrap"
)

func main() {
	bootstrap.Run()
}
