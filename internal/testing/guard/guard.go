package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("WMS_TEST_MODE") == "" {
			_ = os.Setenv("WMS_TEST_MODE", "1")
		}
	})
}
