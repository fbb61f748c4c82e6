package testutil

// SalesCSV is a small sales history spanning two months and three skus.
// SKU-9 is missing from the item master.
const SalesCSV = `date,sku,quantity,price
2024-01-01,SKU-1,10,2.5
2024-01-01,SKU-2,4,8
2024-01-15,SKU-1,6,2.5
2024-02-01,SKU-2,5,8
2024-02-01,SKU-9,7,1
`

// ItemsCSV is the item master for SalesCSV
const ItemsCSV = `sku,category,brand,unitcost
SKU-1,Beverages,Fizz,1.1
SKU-2,Snacks,Crunch,4.2
SKU-3,Beverages,Crunch,0.9
`

// PromotionsCSV holds one bounded and one open-ended promotion
const PromotionsCSV = `sku,startdate,enddate,discountpercent
SKU-1,2024-01-10,2024-01-20,15
SKU-2,2024-02-01,,10
`

// WarehouseColumns is a typical forecast table header
var WarehouseColumns = []string{"date", "actual_sales", "xgboost_pred", "rf_pred", "lightgbm", "dnn_output", "ensemble"}
