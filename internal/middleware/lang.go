package middleware

import (
	"strings"

	"github.com/haierkeys/page-notes-service/pkg/code"

	"github.com/gin-gonic/gin"
	ut "github.com/go-playground/universal-translator"
)

// LangWithTranslator 创建带翻译器的语言中间件（支持依赖注入）
// 语言来源依次为 query lang、header lang、Accept-Language
func LangWithTranslator(uni *ut.UniversalTranslator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var lang string

		if s, exist := c.GetQuery("lang"); exist {
			lang = s
		} else if s = c.GetHeader("lang"); len(s) != 0 {
			lang = s
		} else if s = c.GetHeader("Accept-Language"); len(s) != 0 {
			lang = strings.SplitN(strings.SplitN(s, ",", 2)[0], ";", 2)[0]
		}

		lang = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(lang), "-", "_"))

		if uni != nil {
			// validator 翻译器只区分 zh / en
			transKey := "en"
			if strings.HasPrefix(lang, "zh") {
				transKey = "zh"
			}
			if trans, found := uni.GetTranslator(transKey); found {
				c.Set("trans", trans)
			}
		}

		if strings.HasPrefix(lang, "zh") {
			lang = "zh_cn"
		}
		_ = code.SetGlobalDefaultLang(lang)

		c.Next()
	}
}
