package services

import (
	"go.uber.org/zap"

	"github.com/cppla/phishguard/utils"
)

func logError(msg string, err error, fields ...zap.Field) {
	utils.Logger.Error(msg, append(fields, zap.Error(err))...)
}

func logWarn(msg string, err error, fields ...zap.Field) {
	utils.Logger.Warn(msg, append(fields, zap.Error(err))...)
}
