package main

import (
	"github.com/turtacn/tokenlife/cmd/cli"
)

// main 将所有执行委托给 cli 包提供的 Execute 函数。
func main() {
	cli.Execute()
}

//Personal.AI order the ending
