package registration

import (
	"fmt"
	"strings"

	"github.com/mikegpl/lwm2m-go/pkg/model"
)

// RegisterPath returns the REGISTER URI. The queue-mode flag is always
// present.
func RegisterPath(endpoint string, lifetime int, version, binding string) string {
	return fmt.Sprintf("/rd?ep=%s&lt=%d&lwm2m=%s&b=%s&Q", endpoint, lifetime, version, binding)
}

// UpdatePath returns the UPDATE URI for the location segments assigned on
// REGISTER, e.g. ["rd", "5a3f"] gives "/rd/5a3f?lt=60&b=U".
func UpdatePath(location []string, lifetime int, binding string) string {
	return fmt.Sprintf("%s?lt=%d&b=%s", DeregisterPath(location), lifetime, binding)
}

// DeregisterPath returns the DEREGISTER URI for the location segments.
func DeregisterPath(location []string) string {
	return "/" + strings.Join(location, "/")
}

// LinksPayload renders the announced object instances: "</1/1>,</3/0>".
func LinksPayload(paths []model.Path) []byte {
	links := make([]string, len(paths))
	for i, p := range paths {
		links[i] = p.Link()
	}
	return []byte(strings.Join(links, ","))
}
