package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/revenue_backend/utils"
)

// Mints a bearer token for operational API access. The signing secret comes
// from API_SECRET, so run this with the same env as the target deployment.
func main() {
	adminId := flag.String("admin-id", "", "Required: admin identifier recorded in the audit trail")
	adminName := flag.String("name", "", "Required: display name recorded in the audit trail")
	role := flag.String("role", "admin", "Role claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	if strings.TrimSpace(*adminId) == "" || strings.TrimSpace(*adminName) == "" {
		fmt.Fprintln(os.Stderr, "--admin-id and --name are required")
		os.Exit(1)
	}

	token, err := utils.JwtGenerate(*adminId, *adminName, *role, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
