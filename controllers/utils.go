package controllers

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

func UIntToStr(value uint) string {
	return strconv.FormatUint(uint64(value), 10)
}

func pathUint(c echo.Context, name string) (uint, error) {
	var value uint
	err := echo.PathParamsBinder(c).Uint(name, &value).BindError()
	return value, err
}
