package handlers

import "net/http"

// Index lists the webhook routes, same keys the API always served.
func Index(w http.ResponseWriter, _ *http.Request) {
	apiRoutes := map[string]string{
		"delivered":      "/api/v1/wh/mg/lead/email/delivered",
		"dropped":        "/api/v1/wh/mg/lead/email/dropped",
		"hard-bounce":    "/api/v1/wh/mg/lead/email/bounced",
		"spam-complaint": "/api/v1/wh/mg/lead/email/spam/complaint",
		"unsubscribe":    "/api/v1/wh/mg/lead/email/unsubscribe",
		"clicks":         "/api/v1/wh/mg/lead/email/click",
		"opens":          "/api/v1/wh/mg/lead/email/open",
	}

	writeJSON(w, http.StatusOK, apiRoutes)
}
