// Package web 内嵌聊天组件的静态页面。
package web

import _ "embed"

//go:embed index.html
var IndexHTML []byte
