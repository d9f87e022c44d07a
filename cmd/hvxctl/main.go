package main

import "hvxhost/internal/ctl"

func main() { ctl.Main() }
