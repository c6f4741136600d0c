package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("NODESHOT_TEST_MODE") == "" {
			_ = os.Setenv("NODESHOT_TEST_MODE", "1")
		}
	})
}
