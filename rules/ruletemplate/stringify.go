package ruletemplate

import "fmt"

func stringify(v any) string {
	return fmt.Sprint(v)
}
