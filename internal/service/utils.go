package service

import (
	"fmt"

	"github.com/zjregee/copilot/internal/utils"
)

func GenerateThreadID() string {
	return fmt.Sprintf("thread-%s", utils.GenerateUUID())
}
