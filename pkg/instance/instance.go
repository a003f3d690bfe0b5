package instance

import "os"

var idKeys = []string{"STOREFRONT_INSTANCE_ID", "DYNO", "HOSTNAME"}

// GetID returns the process identifier attached to startup logs, "local" when the
// platform sets none.
func GetID() string {
	for _, key := range idKeys {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	return "local"
}
