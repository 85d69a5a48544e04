package middlewares

import (
	"net/http"
	"time"

	"bitbucket.org/taxnova/gstbill_backend/config"
	"bitbucket.org/taxnova/gstbill_backend/models"
	"bitbucket.org/taxnova/gstbill_backend/utils"
	"github.com/gin-gonic/gin"
)

// CompanyMiddleware resolves the company a request acts on. Desktop
// installs normally hold a single company row, so a missing
// X-Company-Id header falls back to the sole row; installs with more
// than one company must send the header. Endpoints that work without a
// company (company setup, health) pass through unscoped and the model
// layer rejects anything that needed one.
func CompanyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		companyId := c.Request.Header.Get("X-Company-Id")

		if companyId == "" {
			if cached, ok, err := config.GetRedisValue(models.SoleCompanyKey); err == nil && ok {
				companyId = cached
			} else {
				companies, err := models.GetCompanies(c.Request.Context(), nil)
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
					c.Abort()
					return
				}
				if len(companies) == 1 {
					companyId = companies[0].ID.String()
					_ = config.SetRedisValue(models.SoleCompanyKey, companyId, time.Hour)
				}
			}
		} else {
			if _, err := models.GetCompanyById(c.Request.Context(), companyId); err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "company not found"})
				c.Abort()
				return
			}
		}

		if companyId != "" {
			ctx := utils.SetCompanyIdInContext(c.Request.Context(), companyId)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}
