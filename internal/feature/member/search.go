package member

import (
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// searchScope ?q= 按姓名/用户名/邮箱模糊搜，?role= 精确筛选
func searchScope(c *gin.Context, q *gorm.DB) *gorm.DB {
	if s := strings.TrimSpace(c.Query("q")); s != "" {
		like := "%" + s + "%"
		q = q.Where("full_name LIKE ? OR username LIKE ? OR email LIKE ?", like, like, like)
	}
	if r := c.Query("role"); r != "" {
		q = q.Where("role = ?", r)
	}
	return q
}
