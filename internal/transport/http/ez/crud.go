package ez

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"gorm.io/gorm"

	"church-admin/internal/domain"
	"church-admin/internal/policy"
	"church-admin/internal/repo"
	mdw "church-admin/internal/transport/http/middleware"
	resp "church-admin/internal/transport/http/response"
)

type CrudHooks[T any] struct {
	BeforeCreate func(c *gin.Context, ac *policy.Context, m *T) error
	BeforeUpdate func(c *gin.Context, ac *policy.Context, m *T) error
	ScopeList    func(c *gin.Context, q *gorm.DB) *gorm.DB // 额外筛选
	AfterGet     func(c *gin.Context, m *T)
}

type CrudConfig[T domain.Record] struct {
	Store *repo.Store[T]
	Group *gin.RouterGroup
	Path  string

	Hooks CrudHooks[T]

	AllowCreate     bool
	AllowList       bool
	AllowGet        bool
	AllowUpdate     bool
	AllowDelete     bool
	AllowDeactivate bool

	// OwnerField 创建时写入调用方 Actor id 的 *uint 字段，如 "CreatedBy"
	OwnerField string
	OrderBy    string
}

// Crud 注册 list/get/create/update/delete/deactivate；权限全部交给 Store 的策略表
func Crud[T domain.Record](cfg CrudConfig[T]) {
	if !cfg.AllowCreate && !cfg.AllowGet && !cfg.AllowList && !cfg.AllowUpdate && !cfg.AllowDelete && !cfg.AllowDeactivate {
		cfg.AllowCreate, cfg.AllowList, cfg.AllowGet, cfg.AllowUpdate, cfg.AllowDelete = true, true, true, true, true
	}
	s := cfg.Store

	if cfg.AllowCreate {
		cfg.Group.POST(cfg.Path, func(c *gin.Context) {
			ac := mdw.AuthContext(c)
			m := new(T)
			if err := c.ShouldBindJSON(m); err != nil {
				c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, err.Error()))
				return
			}
			resetProtected(m)
			setActive(m)
			if cfg.OwnerField != "" {
				switch id := ac.ActorID(); {
				case id != nil:
					setOwner(m, cfg.OwnerField, *id)
				case !ac.IsService():
					// 没有激活的 Actor 不能以任何人的名义建行
					Fail(c, Forbidden("no active actor"))
					return
				}
			}
			if cfg.Hooks.BeforeCreate != nil {
				if err := cfg.Hooks.BeforeCreate(c, ac, m); err != nil {
					Fail(c, err)
					return
				}
			}
			if err := s.Create(c.Request.Context(), ac, m); err != nil {
				Fail(c, err)
				return
			}
			if cfg.Hooks.AfterGet != nil {
				cfg.Hooks.AfterGet(c, m)
			}
			c.JSON(http.StatusOK, resp.OK(m))
		})
	}

	if cfg.AllowList {
		cfg.Group.GET(cfg.Path, func(c *gin.Context) {
			page := atoiDefault(c.Query("page"), 1)
			size := atoiDefault(c.Query("size"), 20)
			if size > 100 {
				size = 20
			}
			var scopes []repo.Scope
			if cfg.Hooks.ScopeList != nil {
				scopes = append(scopes, func(q *gorm.DB) *gorm.DB { return cfg.Hooks.ScopeList(c, q) })
			}
			items, total, err := s.List(c.Request.Context(), mdw.AuthContext(c),
				repo.Page{Offset: (page - 1) * size, Limit: size, Order: cfg.OrderBy}, scopes...)
			if err != nil {
				Fail(c, err)
				return
			}
			if cfg.Hooks.AfterGet != nil {
				for i := range items {
					cfg.Hooks.AfterGet(c, &items[i])
				}
			}
			c.JSON(http.StatusOK, resp.OK(gin.H{"list": items, "total": total, "page": page, "size": size}))
		})
	}

	if cfg.AllowGet {
		cfg.Group.GET(cfg.Path+"/:id", func(c *gin.Context) {
			id, err := ParamID(c)
			if err != nil {
				Fail(c, err)
				return
			}
			m, err := s.Get(c.Request.Context(), mdw.AuthContext(c), id)
			if err != nil {
				Fail(c, err)
				return
			}
			if cfg.Hooks.AfterGet != nil {
				cfg.Hooks.AfterGet(c, m)
			}
			c.JSON(http.StatusOK, resp.OK(m))
		})
	}

	// Update 只覆盖请求体中出现的字段；id 与时间戳以库中为准
	if cfg.AllowUpdate {
		cfg.Group.PUT(cfg.Path+"/:id", func(c *gin.Context) {
			ac := mdw.AuthContext(c)
			id, err := ParamID(c)
			if err != nil {
				Fail(c, err)
				return
			}
			body, err := c.GetRawData()
			if err != nil || !json.Valid(body) {
				c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, "invalid json body"))
				return
			}
			m, err := s.Update(c.Request.Context(), ac, id, func(row *T) error {
				keep := *row
				if err := json.Unmarshal(body, row); err != nil {
					return BadRequest(err.Error())
				}
				restoreProtected(row, &keep)
				if err := binding.Validator.ValidateStruct(row); err != nil {
					return BadRequest(err.Error())
				}
				if cfg.Hooks.BeforeUpdate != nil {
					return cfg.Hooks.BeforeUpdate(c, ac, row)
				}
				return nil
			})
			if err != nil {
				Fail(c, err)
				return
			}
			if cfg.Hooks.AfterGet != nil {
				cfg.Hooks.AfterGet(c, m)
			}
			c.JSON(http.StatusOK, resp.OK(m))
		})
	}

	if cfg.AllowDelete {
		cfg.Group.DELETE(cfg.Path+"/:id", func(c *gin.Context) {
			id, err := ParamID(c)
			if err != nil {
				Fail(c, err)
				return
			}
			if err := s.Delete(c.Request.Context(), mdw.AuthContext(c), id); err != nil {
				Fail(c, err)
				return
			}
			c.JSON(http.StatusOK, resp.OK(gin.H{"id": id}))
		})
	}

	if cfg.AllowDeactivate {
		cfg.Group.POST(cfg.Path+"/:id/deactivate", func(c *gin.Context) {
			id, err := ParamID(c)
			if err != nil {
				Fail(c, err)
				return
			}
			m, err := s.Deactivate(c.Request.Context(), mdw.AuthContext(c), id)
			if err != nil {
				Fail(c, err)
				return
			}
			c.JSON(http.StatusOK, resp.OK(m))
		})
	}
}

// 反射工具

// protected 主键与自动时间戳不接受客户端输入
func protected(f reflect.StructField) bool {
	tag := f.Tag.Get("gorm")
	return strings.Contains(tag, "primaryKey") || strings.Contains(tag, "autoCreateTime") || strings.Contains(tag, "autoUpdateTime")
}

func structOf(obj any) (reflect.Value, bool) {
	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, false
	}
	return v.Elem(), true
}

func resetProtected(obj any) {
	v, ok := structOf(obj)
	if !ok {
		return
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if protected(t.Field(i)) && v.Field(i).CanSet() {
			v.Field(i).Set(reflect.Zero(t.Field(i).Type))
		}
	}
}

func restoreProtected(dst, src any) {
	dv, ok := structOf(dst)
	if !ok {
		return
	}
	sv, _ := structOf(src)
	t := dv.Type()
	for i := 0; i < t.NumField(); i++ {
		if protected(t.Field(i)) && dv.Field(i).CanSet() {
			dv.Field(i).Set(sv.Field(i))
		}
	}
}

// setActive 新建记录默认激活
func setActive(obj any) {
	v, ok := structOf(obj)
	if !ok {
		return
	}
	if f := v.FieldByName("IsActive"); f.IsValid() && f.Kind() == reflect.Bool && f.CanSet() {
		f.SetBool(true)
	}
}

func setOwner(obj any, field string, id uint) bool {
	v, ok := structOf(obj)
	if !ok {
		return false
	}
	f := v.FieldByName(field)
	if !f.IsValid() || !f.CanSet() || f.Type() != reflect.TypeOf((*uint)(nil)) {
		return false
	}
	f.Set(reflect.ValueOf(&id))
	return true
}
