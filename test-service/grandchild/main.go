package main

import (
	"fmt"
	"time"
)

func main() {
	// Sleep long so tests can detect a grandchild that survived the kill
	fmt.Println("grandchild-start")
	time.Sleep(30 * time.Second)
	fmt.Println("grandchild-exit")
}
