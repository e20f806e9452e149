// Package csrfgin adapts csrf.Protector to gin.
package csrfgin

import (
	"github.com/gin-gonic/gin"

	"github.com/JeanGrijp/csrfkit/csrf"
)

// Middleware returns a gin handler enforcing CSRF protection with p.
//
// Gin route parameters are copied into the request path values so that
// csrf.FormFieldPolicy finds a token carried in the route. The token is saved
// before the first byte of the response is written. Exempted requests pass
// through untouched.
func Middleware(p *csrf.Protector) gin.HandlerFunc {
	return func(c *gin.Context) {
		if csrf.IsExempt(c.Request) {
			c.Next()
			return
		}
		for _, param := range c.Params {
			c.Request.SetPathValue(param.Key, param.Value)
		}

		r, err := p.Verify(c.Request)
		c.Request = r
		if err != nil {
			p.Reject(c.Writer, r, err)
			c.Abort()
			return
		}

		w := c.Writer
		sw := &saveWriter{ResponseWriter: w, save: func() {
			if err := p.Save(w, r); err != nil {
				_ = c.Error(err)
			}
		}}
		c.Writer = sw
		c.Next()
		c.Writer = w
		sw.flush()
	}
}

// Token returns the CSRF token for the request of c.
func Token(c *gin.Context) (string, error) {
	return csrf.Token(c.Request)
}

type saveWriter struct {
	gin.ResponseWriter
	save  func()
	saved bool
}

func (w *saveWriter) flush() {
	if w.saved {
		return
	}
	w.saved = true
	w.save()
}

func (w *saveWriter) WriteHeader(code int) {
	w.flush()
	w.ResponseWriter.WriteHeader(code)
}

func (w *saveWriter) WriteHeaderNow() {
	w.flush()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *saveWriter) Write(b []byte) (int, error) {
	w.flush()
	return w.ResponseWriter.Write(b)
}

func (w *saveWriter) WriteString(s string) (int, error) {
	w.flush()
	return w.ResponseWriter.WriteString(s)
}

func (w *saveWriter) Flush() {
	w.flush()
	w.ResponseWriter.Flush()
}
