package bot

// BOT KEYBOARDS

import (
	"fmt"

	"shoeshop-bot/internal/storage"
)

func brandMenu(brands []storage.Brand) Menu {
	menu := make(Menu, 0, len(brands))
	for _, brand := range brands {
		menu = append(menu, []Button{{
			Label: brand.Name,
			Data:  selectionData(ActionSelectBrand, brand.ID),
		}})
	}
	return menu
}

func shoeMenu(shoes []storage.Shoe) Menu {
	menu := make(Menu, 0, len(shoes))
	for _, shoe := range shoes {
		menu = append(menu, []Button{{
			Label: fmt.Sprintf("%s - %d руб.", shoe.Name, shoe.Price),
			Data:  selectionData(ActionSelectShoe, shoe.ID),
		}})
	}
	return menu
}

// sizeMenu lays sizes out three per row.
func sizeMenu(sizes []storage.Size) Menu {
	var menu Menu
	var row []Button
	for _, size := range sizes {
		row = append(row, Button{
			Label: size.Value,
			Data:  selectionData(ActionSelectSize, size.ID),
		})
		if len(row) == 3 {
			menu = append(menu, row)
			row = nil
		}
	}
	if len(row) > 0 {
		menu = append(menu, row)
	}
	return menu
}

func colorMenu(colors []storage.Color) Menu {
	menu := make(Menu, 0, len(colors))
	for _, color := range colors {
		menu = append(menu, []Button{{
			Label: color.Name,
			Data:  selectionData(ActionSelectColor, color.ID),
		}})
	}
	return menu
}

func paymentMenu() Menu {
	return Menu{
		{{Label: "Банковской картой", Data: paymentData(storage.PaymentCard)}},
		{{Label: "Наличными курьеру", Data: paymentData(storage.PaymentCash)}},
	}
}
