package hostapi

import (
	"net/http"

	"github.com/danmuck/savitr/internal/heater"
	"github.com/danmuck/savitr/internal/protocol/schema"
	"github.com/gin-gonic/gin"
)

// ParameterInfo lets a host discover fields and their options.
type ParameterInfo struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Readable    bool     `json:"readable"`
	Settable    bool     `json:"settable"`
	Options     []string `json:"options,omitempty"`
	Default     string   `json:"default,omitempty"`
	Description string   `json:"description"`
}

func Catalog(reg *schema.Registry) []ParameterInfo {
	params := reg.Parameters()
	out := make([]ParameterInfo, 0, len(params))
	for _, d := range params {
		info := ParameterInfo{
			Name:        d.Name,
			Type:        d.Type.String(),
			Readable:    d.Readable(),
			Settable:    heater.IsSettable(d.Name),
			Default:     d.Default,
			Description: d.Description,
		}
		switch {
		case d.Enum != nil:
			info.Type = "enum"
			for _, e := range d.Enum.Entries() {
				info.Options = append(info.Options, e.Name)
			}
		case d.Switch != nil:
			info.Type = "switch"
			info.Options = []string{schema.SwitchOff, schema.SwitchOn}
		}
		out = append(out, info)
	}
	return out
}

func (s *Server) parameters(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"parameters": Catalog(s.reg)})
}
