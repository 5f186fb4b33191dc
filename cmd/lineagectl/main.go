// lineagectl: обслуживание хранилища статей: очистка файлов и ремонт версий.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
