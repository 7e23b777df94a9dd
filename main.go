package main

import "github.com/qgem/appcenter/backend/go-services/cmd"

func main() {
	cmd.Execute()
}
