package catalog

// DemoInventory returns the products the demo shop is seeded with.
func DemoInventory() []Product {
	return []Product{
		{ID: "1", Name: "Classic T-Shirt", Price: 19.99, Category: "Clothing", Description: "A comfortable cotton t-shirt in various colors", Stock: 50, Colors: []string{"Black", "White", "Navy", "Red"}},
		{ID: "2", Name: "Slim Fit Jeans", Price: 49.99, Category: "Clothing", Description: "Modern slim fit jeans with stretch fabric", Stock: 30, Sizes: []string{"28", "30", "32", "34", "36"}},
		{ID: "3", Name: "Running Sneakers", Price: 79.99, Category: "Footwear", Description: "Lightweight running shoes with cushioning", Stock: 25, Sizes: []string{"7", "8", "9", "10", "11"}},
		{ID: "4", Name: "Leather Wallet", Price: 29.99, Category: "Accessories", Description: "Genuine leather wallet with multiple card slots", Stock: 40, Colors: []string{"Brown", "Black"}},
		{ID: "5", Name: "Denim Jacket", Price: 59.99, Category: "Clothing", Description: "Classic denim jacket with brass buttons", Stock: 20, Sizes: []string{"S", "M", "L", "XL"}},
		{ID: "6", Name: "Smart Watch", Price: 199.99, Category: "Electronics", Description: "Fitness tracking smartwatch with heart rate monitor", Stock: 15, Colors: []string{"Black", "Silver", "Rose Gold"}},
		{ID: "7", Name: "Backpack", Price: 39.99, Category: "Accessories", Description: "Water-resistant backpack with laptop sleeve", Stock: 35, Colors: []string{"Navy", "Gray", "Black"}},
		{ID: "8", Name: "Sunglasses", Price: 89.99, Category: "Accessories", Description: "Polarized UV protection sunglasses", Stock: 45, Colors: []string{"Black", "Tortoise", "Silver"}},
		{ID: "9", Name: "Hooded Sweatshirt", Price: 34.99, Category: "Clothing", Description: "Comfortable cotton blend hoodie", Stock: 40, Sizes: []string{"S", "M", "L", "XL"}, Colors: []string{"Gray", "Black", "Navy"}},
		{ID: "10", Name: "Wireless Earbuds", Price: 129.99, Category: "Electronics", Description: "True wireless earbuds with noise cancellation", Stock: 30, Colors: []string{"White", "Black", "Blue"}},
	}
}
