package connector

import "go.uber.org/zap"

func zapID(id string) zap.Field {
	return zap.String("id", id)
}

func zapErr(err error) zap.Field {
	return zap.Error(err)
}
