package handlers

import (
	"net/http"
	"strings"

	"moveo/models"
	"moveo/services/geo"

	"github.com/gin-gonic/gin"
)

// EligibilityHandler exposes the geographic matcher for support tooling.
type EligibilityHandler struct {
	Matcher geo.EligibilityFinder
}

type eligibilityQuery struct {
	ServiceType   string   `form:"serviceType" binding:"required,servicetype"`
	Lat           *float64 `form:"lat" binding:"required,latitude"`
	Lng           *float64 `form:"lng" binding:"required,longitude"`
	MaxDistanceKm float64  `form:"maxDistanceKm" binding:"required,gt=0"`
	Exclude       string   `form:"exclude"`
}

func (q eligibilityQuery) toQuery() geo.Query {
	var excluded []string
	for _, id := range strings.Split(q.Exclude, ",") {
		if id = strings.TrimSpace(id); id != "" {
			excluded = append(excluded, id)
		}
	}
	return geo.Query{
		ServiceType:   q.ServiceType,
		Lat:           *q.Lat,
		Lng:           *q.Lng,
		MaxDistanceKm: q.MaxDistanceKm,
		ExcludedIDs:   models.NewProviderIDSet(excluded...),
	}
}

// FindEligibleHandler handles GET /api/eligibility.
func (h *EligibilityHandler) FindEligibleHandler(c *gin.Context) {
	var input eligibilityQuery
	if err := c.ShouldBindQuery(&input); err != nil {
		bindError(c, err)
		return
	}
	providers, err := h.Matcher.FindEligible(c.Request.Context(), input.toQuery())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"providers": providers, "count": len(providers)})
}

// CountEligibleHandler handles GET /api/eligibility/count.
func (h *EligibilityHandler) CountEligibleHandler(c *gin.Context) {
	var input eligibilityQuery
	if err := c.ShouldBindQuery(&input); err != nil {
		bindError(c, err)
		return
	}
	n, err := h.Matcher.CountEligible(c.Request.Context(), input.toQuery())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}
